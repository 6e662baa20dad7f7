package main

import "github.com/dbsmedya/catalogsync/cmd/catalogsync/cmd"

func main() {
	cmd.Execute()
}
