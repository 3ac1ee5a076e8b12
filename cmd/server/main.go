package main

import (
	"github.com/rubihq/chat-sync/cmd"
)

func main() {
	cmd.Execute()
}
