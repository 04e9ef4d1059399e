// Package main is the entrypoint for the Lendr admin service.
package main

import (
	"github.com/lendr/lendr/internal/app"
	"github.com/lendr/lendr/internal/model"
)

func main() {
	app.Run(model.RoleAdmin)
}
