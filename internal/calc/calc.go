// Package calc is the remote stack-calculator service: each client
// gets its own integer stack, identified by an opaque handle, and
// pushes values or fold operations over RPC. It shares no state or
// protocol with the aggregator.
package calc

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoStack is returned for operations on a handle that was never
	// created.
	ErrNoStack = errors.New("client stack not found; create a stack first")
	// ErrEmptyStack is returned when popping or folding an empty stack.
	ErrEmptyStack = errors.New("stack is empty")
	// ErrBadOperation is returned for an unsupported fold operator.
	ErrBadOperation = errors.New("unsupported operation")
)

// Calculator holds one stack per client handle. All methods are safe
// for concurrent use; DelayPop sleeps outside the lock so slow pops
// never block other clients.
type Calculator struct {
	mu     sync.Mutex
	stacks map[string][]int
}

func New() *Calculator {
	return &Calculator{stacks: make(map[string][]int)}
}

// CreateStack allocates a fresh stack and returns its handle.
func (c *Calculator) CreateStack() string {
	id := uuid.NewString()
	c.mu.Lock()
	c.stacks[id] = nil
	c.mu.Unlock()
	return id
}

// PushValue pushes val onto the client's stack.
func (c *Calculator) PushValue(clientID string, val int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stack, ok := c.stacks[clientID]
	if !ok {
		return ErrNoStack
	}
	c.stacks[clientID] = append(stack, val)
	return nil
}

// PushOperation folds the whole stack with the operator (min, max,
// lcm, gcd), clears it, and pushes the single result.
func (c *Calculator) PushOperation(clientID, operator string) error {
	fold, err := foldFunc(operator)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	stack, ok := c.stacks[clientID]
	if !ok {
		return ErrNoStack
	}
	if len(stack) == 0 {
		return ErrEmptyStack
	}

	result := stack[0]
	for _, v := range stack[1:] {
		result = fold(result, v)
	}
	c.stacks[clientID] = []int{result}
	return nil
}

// Pop removes and returns the top value.
func (c *Calculator) Pop(clientID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stack, ok := c.stacks[clientID]
	if !ok {
		return 0, ErrNoStack
	}
	if len(stack) == 0 {
		return 0, ErrEmptyStack
	}
	top := stack[len(stack)-1]
	c.stacks[clientID] = stack[:len(stack)-1]
	return top, nil
}

// IsEmpty reports whether the client's stack has no values.
func (c *Calculator) IsEmpty(clientID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stack, ok := c.stacks[clientID]
	if !ok {
		return false, ErrNoStack
	}
	return len(stack) == 0, nil
}

// DelayPop waits for the given duration, then pops.
func (c *Calculator) DelayPop(clientID string, delay time.Duration) (int, error) {
	time.Sleep(delay)
	return c.Pop(clientID)
}

func foldFunc(operator string) (func(a, b int) int, error) {
	switch strings.ToLower(operator) {
	case "min":
		return func(a, b int) int {
			if a < b {
				return a
			}
			return b
		}, nil
	case "max":
		return func(a, b int) int {
			if a > b {
				return a
			}
			return b
		}, nil
	case "gcd":
		return gcd, nil
	case "lcm":
		return lcm, nil
	default:
		return nil, ErrBadOperation
	}
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
