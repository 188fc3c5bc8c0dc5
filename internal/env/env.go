package env

import (
	"os"
)

const (
	AWSRegion         = "AWS_REGION"
	AWSID             = "AWS_ID"
	AWSSecret         = "AWS_SECRET"
	AWSToken          = "AWS_TOKEN"
	DynamoDBEndpoint  = "DYNAMODB_ENDPOINT"
	OperatorSecretKey = "OPERATOR_SECRET"
	AuthRedisURL      = "AUTH_REDIS_URL"
	AuthRedisPass     = "AUTH_REDIS_PASS"
	ConsoleRedisURL   = "CONSOLE_REDIS_URL"
	ConsoleRedisPass  = "CONSOLE_REDIS_PASS"
	PlatformAPIURL    = "PLATFORM_API_URL"
	WebURL            = "WEB_URL"
)

// Require panics when any of the given variables is unset. The mains call it
// before wiring anything, so a misconfigured deployment fails at startup
// instead of on the first request.
func Require(keys ...string) {
	for _, key := range keys {
		if os.Getenv(key) == "" {
			panic("env: required environment variable not set: " + key)
		}
	}
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}
