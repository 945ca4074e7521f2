// Command intstack is the command-line client for the device node.
//
// Usage:
//
//	intstack [--node PATH] [--timeout D] set-size N
//	intstack [--node PATH] [--timeout D] push V
//	intstack [--node PATH] [--timeout D] pop
//	intstack [--node PATH] [--timeout D] unwind
//
// pop prints the value or NULL when the stack is empty. unwind pops until
// the stack is empty and prints the values on one line, top first.
//
// Exit status is 0 on success, 1 on other failures, 2 on usage errors,
// 3 when the stack is full and 4 when the device is not present.
package main
