package main

import "github.com/dbsmedya/goshard/cmd/goshard/cmd"

func main() {
	cmd.Execute()
}
