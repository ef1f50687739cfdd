package main

import "keyrelay/cmd/keyrelay"

func main() {
	keyrelay.Execute()
}
