package core

// appendUint appends the decimal form of n to buf without using fmt
// This is a lightweight alternative for embedded systems
func appendUint(buf []byte, n uint64) []byte {
	if n == 0 {
		return append(buf, '0')
	}

	// Build digits from right to left in a scratch array
	var tmp [20]byte
	pos := len(tmp)
	for n > 0 {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
	}

	return append(buf, tmp[pos:]...)
}
