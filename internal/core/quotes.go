package core

import "math/rand/v2"

type Quote struct {
	Text   string
	Author string
}

// Chooser picks an index in [0, n). Tests swap it for a fixed choice.
type Chooser func(n int) int

// DefaultChooser draws uniformly from math/rand/v2.
func DefaultChooser(n int) int { return rand.IntN(n) }

var quotes = [...]Quote{
	{"Uma jornada de mil quilômetros precisa começar com um simples passo.", "Lao Tzu"},
	{"A riqueza é consequência de trabalho e poupança.", "Benjamin Franklin"},
	{"Jamais gaste seu dinheiro antes de você possuí-lo.", "Thomas Jefferson"},
	{"Sucesso é a soma de pequenos esforços, repetidos o tempo todo.", "Robert Collier"},
	{"Dinheiro é apenas uma ferramenta. Ele irá levá-lo onde quiser, mas não vai substituí-lo como motorista.", "Ayn Rand"},
	{"Cuidado com as pequenas despesas, um pequeno vazamento afundará um grande navio.", "Benjamin Franklin"},
	{"As pessoas gastam um dinheiro que não têm, para comprar coisas de que elas não precisam, para impressionar pessoas de quem não gostam.", "Will Rogers"},
	{"A educação formal vai fazer você ganhar a vida. A autoeducação vai fazer você alcançar uma fortuna.", "Jim Rohn"},
	{"O único lugar em que sucesso vem antes de trabalho é no dicionário.", "Vidal Sassoon"},
	{"Dinheiro é um mestre terrível, mas um excelente servo.", "P. T. Barnum"},
	{"A maneira mais rápida de ganhar dinheiro é resolver um problema. Quanto maior for o problema a resolver, mais dinheiro que você vai ganhar.", "Steve Siebold"},
}

// Quotes returns a copy of the quote list.
func Quotes() []Quote {
	out := make([]Quote, len(quotes))
	copy(out, quotes[:])
	return out
}

// PickQuote returns one quote chosen by choose, falling back to
// DefaultChooser when choose is nil. Out of range choices wrap around.
func PickQuote(choose Chooser) Quote {
	if choose == nil {
		choose = DefaultChooser
	}
	n := len(quotes)
	i := choose(n)
	return quotes[((i%n)+n)%n]
}
