package main

import "github.com/kebairia/pgverify/cmd"

func main() {
	cmd.Execute()
}
