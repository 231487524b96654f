package main

import (
	"os"

	"horse.fit/newsdesk/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
