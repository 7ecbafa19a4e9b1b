package main

import "fmt"

type greeter interface {
	greet(name string) string
}

type english struct{}

func (english) greet(name string) string {
	return "hello " + name
}

func greetAll(g greeter, names []string) {
	for _, n := range names {
		fmt.Println(g.greet(n))
	}
}

func main() {
	greetAll(english{}, []string{"alice", "bob"})
}
