package main

import (
	"os"

	"github.com/kha997/zenamanagephp-sub030/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
