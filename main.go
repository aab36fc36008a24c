package main

import "photo-exchange-backend/cmd"

func main() {
	cmd.Run()
}
