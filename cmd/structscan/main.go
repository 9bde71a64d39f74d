package main

import "github.com/mvp-joe/structscan/internal/cli"

func main() {
	cli.Execute()
}
