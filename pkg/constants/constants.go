package constants

import "github.com/go-playground/validator/v10"

var Validate = validator.New()

type contextKey string

const (
	AppKey       contextKey = "app"
	PoolKey      contextKey = "pool"
	TxKey        contextKey = "tx"
	LoggerKey    contextKey = "logger"
	ParamsKey    contextKey = "params"
	RequestIDKey contextKey = "requestID"
)
