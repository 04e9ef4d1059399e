// Package main is the entrypoint for the Lendr user service.
package main

import (
	"github.com/lendr/lendr/internal/app"
	"github.com/lendr/lendr/internal/model"
)

func main() {
	app.Run(model.RoleUser)
}
