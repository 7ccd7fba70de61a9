package logging

import "github.com/sirupsen/logrus"

// BaseFields builds the action + config path fields shared by CLI entry
// points.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields provides the tool/origin/cache-status fields reused by
// request logs.
func RequestFields(tool, origin, cacheStatus, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"tool":         tool,
		"origin":       origin,
		"cache_status": cacheStatus,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
