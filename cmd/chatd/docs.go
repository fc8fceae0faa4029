package main

// General API documentation for swaggo. Run `swag init -g cmd/chatd/docs.go` to regenerate docs.
//
// @title           chatd API
// @version         1.0
// @description     HTTP API for single-resident-model chat serving: lifecycle, admission and streaming inference.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
