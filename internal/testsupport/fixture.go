// Package testsupport centralizes the deterministic fixture used across
// this module's package tests: a fixed run of 16 payloads summing to 197
// bytes, grounded on the original commit log's own test fixture.
package testsupport

// Packets returns the fixed 16-payload fixture. Its lengths sum to 197
// bytes, matching the fixture scenarios S2-S5 are built around.
func Packets() [][]byte {
	lens := []int{10, 20, 5, 30, 2, 15, 8, 25, 1, 12, 18, 7, 22, 9, 11, 2}
	sum := 0
	for _, l := range lens {
		sum += l
	}
	if sum != 197 {
		panic("testsupport: fixture length sum drifted from 197")
	}
	out := make([][]byte, len(lens))
	for i, l := range lens {
		b := make([]byte, l)
		for j := range b {
			b[j] = byte('A' + (i+j)%26)
		}
		out[i] = b
	}
	return out
}
