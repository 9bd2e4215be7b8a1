package main

import "profile-matcher/internal/cli"

func main() {
	cli.Execute()
}
