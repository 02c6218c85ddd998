package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/atomweather/aggregator/internal/calc"
)

// calc-client pushes the integers given on the command line, applies
// the operator, and prints the popped result.
//
//	calc-client <server-addr> <min|max|lcm|gcd> <n> [n...]
func main() {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: calc-client <server-addr> <min|max|lcm|gcd> <n> [n...]")
		os.Exit(1)
	}
	addr, operator := os.Args[1], os.Args[2]

	c, err := calc.Dial(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	for _, arg := range os.Args[3:] {
		n, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid value %q\n", arg)
			os.Exit(1)
		}
		if err := c.PushValue(n); err != nil {
			fmt.Fprintf(os.Stderr, "push: %v\n", err)
			os.Exit(1)
		}
	}

	if err := c.PushOperation(operator); err != nil {
		fmt.Fprintf(os.Stderr, "operation: %v\n", err)
		os.Exit(1)
	}
	result, err := c.Pop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pop: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result)
}
