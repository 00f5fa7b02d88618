/*
Copyright 2024 Markus Papenbrock
*/
package main

import "github.com/mpapenbr/cruisesim/cmd"

func main() {
	cmd.Execute()
}
