// Copyright 2024 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package verify

import "strings"

// databaseInfo extracts the database details a service reports on /health/db.
// Both {"database": {"name": .., "tableCount": ..}} and {"database": "..", "tableCount": ..} are understood.
func databaseInfo(data any) (*DatabaseInfo, string) {
	payload, ok := data.(map[string]any)
	if !ok {
		return nil, ""
	}

	var info = &DatabaseInfo{}
	var status, _ = payload["status"].(string)

	switch database := payload["database"].(type) {
	case map[string]any:
		info.Name, _ = database["name"].(string)
		info.TableCount = intValue(database["tableCount"])
		if nested, ok := database["status"].(string); ok {
			status = nested
		}
	case string:
		info.Name = database
		info.TableCount = intValue(payload["tableCount"])
	default:
		info.TableCount = intValue(payload["tableCount"])
	}

	if info.Name == "" && info.TableCount == nil {
		return nil, status
	}
	return info, status
}

func intValue(value any) *int {
	number, ok := value.(float64)
	if !ok {
		return nil
	}
	result := int(number)
	return &result
}

func reportsHealthy(status string) bool {
	switch strings.ToLower(status) {
	case "ok", "up", "healthy", "connected":
		return true
	}
	return false
}
