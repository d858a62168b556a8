package main

import "github.com/mukeshbadgujar/emandate-service/cmd"

func main() {
	cmd.Execute()
}
