package cipher

// Manifest is the result of analyzing one player-script version: the
// signature timestamp the script reports and the ordered transforms its
// decipher routine performs. A Manifest is immutable once built; share it
// freely across goroutines.
type Manifest struct {
	SignatureTimestamp string
	Operations         []Operation
}

// Decipher decrypts a signature using the manifest's own operation list.
func (m *Manifest) Decipher(sig string) string {
	return Decipher(sig, m.Operations)
}
