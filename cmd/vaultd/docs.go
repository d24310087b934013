package main

//go:generate swag init -g cmd/vaultd/main.go -o docs

// @title           Vault Accounting API
// @version         0.1.0
// @description     Pooled-asset vault accounting, role management, and strategy registry.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
