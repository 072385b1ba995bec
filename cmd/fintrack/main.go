// Command fintrack runs the fintrack authentication service.
package main

func main() {
	Execute()
}
