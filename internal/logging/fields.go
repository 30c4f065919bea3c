package logging

import "github.com/sirupsen/logrus"

// BaseFields tags an entry with the action and config source.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ProxyFields describes one forwarded API request.
func ProxyFields(requestID, method, path, upstream string, status int) logrus.Fields {
	return logrus.Fields{
		"action":     "proxy",
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"upstream":   upstream,
		"status":     status,
	}
}

// TranslateFields describes one translation endpoint call.
func TranslateFields(endpoint, targetLang string, texts int, fallback bool) logrus.Fields {
	return logrus.Fields{
		"action":        "translate",
		"endpoint":      endpoint,
		"target_lang":   targetLang,
		"texts":         texts,
		"used_fallback": fallback,
	}
}
