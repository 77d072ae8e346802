package main

import (
	"github.com/shouni/gemini-headshot-kit/cmd"
)

func main() {
	cmd.Execute()
}
