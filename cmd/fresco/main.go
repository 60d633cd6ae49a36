package main

import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/dustpile/fresco/internal/cli"
)

func main() {
	cli.Execute()
}
