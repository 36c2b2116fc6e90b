package main

import "github.com/Niklas-dev/go-auth-service/cmd"

func main() {
	cmd.Execute()
}
