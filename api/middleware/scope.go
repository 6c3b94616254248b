/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package middleware

import "strings"

// Resource is a family of API routes, named by the first path segment.
type Resource string

// Action is what a request does to a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
	ActionAll    Action = "*"

	ResourceAccounts     Resource = "accounts"
	ResourceFunds        Resource = "funds"
	ResourceTransfers    Resource = "transfers"
	ResourceTransactions Resource = "transactions"
	ResourceLoans        Resource = "loans"
	ResourceLedger       Resource = "ledger"
)

// methodToAction maps HTTP methods to actions
var methodToAction = map[string]Action{
	"GET":    ActionRead,
	"HEAD":   ActionRead,
	"POST":   ActionWrite,
	"PUT":    ActionWrite,
	"PATCH":  ActionWrite,
	"DELETE": ActionDelete,
}

// adminScopes lists what only the holder of the secret key may do: create and
// destroy money, audit the ledger and remove accounts.
var adminScopes = []string{
	BuildScope(ResourceFunds, ActionAll),
	BuildScope(ResourceLedger, ActionAll),
	BuildScope(ResourceAccounts, ActionDelete),
}

// BuildScope creates a scope string from resource and action
func BuildScope(resource Resource, action Action) string {
	return string(resource) + ":" + string(action)
}

// ParseScope parses a scope string into resource and action
func ParseScope(scope string) (Resource, Action) {
	parts := strings.Split(scope, ":")
	if len(parts) != 2 {
		return "", ""
	}
	return Resource(parts[0]), Action(parts[1])
}

// HasPermission checks if a set of scopes covers resource for the given HTTP method.
func HasPermission(scopes []string, resource Resource, method string) bool {
	action := methodToAction[method]
	if action == "" {
		return false
	}

	for _, scope := range scopes {
		scopeResource, scopeAction := ParseScope(scope)
		if scopeResource == resource && (scopeAction == ActionAll || scopeAction == action) {
			return true
		}
	}
	return false
}

// RequiresAdmin reports whether a request needs the secret key.
func RequiresAdmin(path, method string) bool {
	return HasPermission(adminScopes, getResourceFromPath(path), method)
}

func getResourceFromPath(path string) Resource {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return Resource(first)
}
