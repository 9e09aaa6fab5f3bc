// Package document validates and formats Brazilian CPF/CNPJ identifiers.
package document

import "strings"

// Digits strips everything that is not a decimal digit.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize re-punctuates a document to its canonical form:
// NNN.NNN.NNN-NN for 11 digits, NN.NNN.NNN/NNNN-NN for 14.
// Anything else is returned trimmed and otherwise untouched.
func Normalize(raw string) string {
	d := Digits(raw)
	switch len(d) {
	case 11:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	case 14:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	default:
		return strings.TrimSpace(raw)
	}
}

// IsValid reports whether raw carries a CPF (11 digits) or CNPJ (14 digits)
// with correct check digits. Punctuation is ignored.
func IsValid(raw string) bool {
	d := Digits(raw)
	switch len(d) {
	case 11:
		return validCPF(d)
	case 14:
		return validCNPJ(d)
	default:
		return false
	}
}

func allSameDigit(d string) bool {
	for i := 1; i < len(d); i++ {
		if d[i] != d[0] {
			return false
		}
	}
	return true
}

// validCPF computes the two modulo-11 check digits with weights 10..2 and
// 11..2. A remainder of 10 or 11 collapses to 0.
func validCPF(cpf string) bool {
	if allSameDigit(cpf) {
		return false
	}

	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(cpf[i]-'0') * (10 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 || rest == 11 {
		rest = 0
	}
	if rest != int(cpf[9]-'0') {
		return false
	}

	sum = 0
	for i := 0; i < 10; i++ {
		sum += int(cpf[i]-'0') * (11 - i)
	}
	rest = (sum * 10) % 11
	if rest == 10 || rest == 11 {
		rest = 0
	}
	return rest == int(cpf[10]-'0')
}

// validCNPJ computes the two check digits with the cyclic weight sequence
// 2..9 applied right to left.
func validCNPJ(cnpj string) bool {
	if allSameDigit(cnpj) {
		return false
	}
	return cnpjDigit(cnpj, 12) == int(cnpj[12]-'0') &&
		cnpjDigit(cnpj, 13) == int(cnpj[13]-'0')
}

func cnpjDigit(cnpj string, length int) int {
	sum := 0
	pos := length - 7
	for i := 0; i < length; i++ {
		sum += int(cnpj[i]-'0') * pos
		pos--
		if pos < 2 {
			pos = 9
		}
	}
	if sum%11 < 2 {
		return 0
	}
	return 11 - sum%11
}
