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

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, e := json.Marshal(payload)
	if e != nil {
		return nil, e
	}
	return bytes.NewBuffer(c), nil
}

// Call sends req as JSON and decodes a JSON body into response when one is
// given. A non-2xx status is returned as an error along with the response.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp, fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL, resp.StatusCode, string(body))
	}

	if response == nil {
		return resp, nil
	}
	err = json.NewDecoder(resp.Body).Decode(response)
	if err == io.EOF {
		err = nil
	}
	return resp, err
}
