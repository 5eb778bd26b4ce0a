package svc

import "errors"

// ErrStorageInitFailed 错误：存储初始化失败
var ErrStorageInitFailed = errors.New("storage initialization failed")

// ErrMissingCredentials 错误：私有接口需要 OKX api_key / api_secret / passphrase
var ErrMissingCredentials = errors.New("okx credentials missing")
