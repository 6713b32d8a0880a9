package ivsym

import "math/big"

// euclideanDivMod implements the Euclidean convention from spec.md
// §4.3/P2: the remainder is always non-negative, the quotient is
// adjusted so that q*b + r == a. big.Int's own QuoRem truncates toward
// zero, so the sign of the remainder has to be fixed up by hand.
func euclideanDivMod(a, b *big.Int) (q, r *big.Int) {
	q, r = new(big.Int), new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() < 0 {
		if b.Sign() > 0 {
			q.Sub(q, big.NewInt(1))
			r.Add(r, b)
		} else {
			q.Add(q, big.NewInt(1))
			r.Sub(r, b)
		}
	}
	return q, r
}
