package main

import "limeal.fr/mclaunch/cmd"

func main() {
	cmd.Execute()
}
