package log

import (
	"net/url"
	"os"
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/patrickmn/go-cache"
)

// A job can legitimately run for hours on a long source, so its cached
// log context has to outlive it comfortably.
const loggerContextTTL = 6 * time.Hour

// Loggers are cached per request/job id so that context attached when a
// job starts running (its source id) sticks to every later line the
// pipeline stages emit for the same id.
var loggerCache = cache.New(loggerContextTTL, 10*time.Minute)

// AddContext permanently attaches keyvals to every future log line for
// this request/job id.
func AddContext(requestID string, keyvals ...interface{}) {
	logger := kitlog.With(getLogger(requestID), redactKeyvals(keyvals...)...)

	err := loggerCache.Replace(requestID, logger, loggerContextTTL)
	if err != nil {
		_ = logger.Log("msg", "error replacing logger in cache: "+err.Error())
	}
}

func Log(requestID string, message string, keyvals ...interface{}) {
	_ = kitlog.With(getLogger(requestID), "msg", message).Log(redactKeyvals(keyvals...)...)
}

// Log in situations where we don't have access to the Request ID.
// Should be used sparingly and with as much context inserted into the message as possible
func LogNoRequestID(message string, keyvals ...interface{}) {
	_ = kitlog.With(newLogger(), "msg", message).Log(redactKeyvals(keyvals...)...)
}

func LogError(requestID string, message string, err error, keyvals ...interface{}) {
	msgLogger := kitlog.With(getLogger(requestID), "msg", message)
	errLogger := kitlog.With(msgLogger, "err", err.Error())
	_ = errLogger.Log(redactKeyvals(keyvals...)...)
}

func getLogger(requestID string) kitlog.Logger {
	logger, found := loggerCache.Get(requestID)
	if found {
		return logger.(kitlog.Logger)
	}

	newLogger := kitlog.With(newLogger(), "request_id", requestID)
	err := loggerCache.Add(requestID, newLogger, loggerContextTTL)
	if err != nil {
		_ = newLogger.Log("msg", "error adding logger to cache", "request_id", requestID, "err", err.Error())
	}
	return newLogger
}

func newLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}

// redactKeyvals strips credentials out of every value before it reaches
// the log stream: fetch URLs can carry signed userinfo, and the S3
// mirror's endpoints embed access keys.
func redactKeyvals(keyvals ...interface{}) []interface{} {
	var res []interface{}
	for i := range keyvals {
		if i%2 == 1 {
			k, v := keyvals[i-1], keyvals[i]
			res = append(res, k)
			switch s := v.(type) {
			case string:
				res = append(res, RedactURL(s))
			case url.URL:
				res = append(res, s.Redacted())
			case *url.URL:
				if s != nil {
					res = append(res, s.Redacted())
				}
			default:
				res = append(res, v)
			}
		}
	}
	return res
}

// RedactURL masks the credentials of any http(s) or s3 URL-shaped
// string, returning everything else untouched.
func RedactURL(str string) string {
	strLower := strings.ToLower(str)
	if !strings.HasPrefix(strLower, "http") && !strings.HasPrefix(strLower, "s3") {
		return str
	}

	u, err := url.Parse(str)
	if err != nil {
		return "REDACTED"
	}
	return u.Redacted()
}
