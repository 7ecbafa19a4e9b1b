package main

type Shape interface {
	Area() int
}

type Square struct {
	side int
}

func (s Square) Area() int {
	return s.side * s.side
}

type Circle struct {
	r int
}

func (c *Circle) Area() int {
	return 3 * c.r * c.r
}

func total(shapes []Shape) int {
	t := 0
	for i := range shapes {
		t += shapes[i].Area()
	}
	return t
}

func fail(n int) {
	if n < 0 {
		panic("negative")
	}
}

func safe(n int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = nil
		}
	}()
	fail(n)
	return nil
}

func fact(n int) int {
	if n == 0 {
		return 1
	}
	return n * fact(n-1)
}

func apply(f func(int) int, x int) int {
	return f(x)
}

func main() {
	total([]Shape{Square{2}, &Circle{1}})
	safe(1)
	fact(3)
	apply(fact, 2)
}
