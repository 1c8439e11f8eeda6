// Package secure keeps credential values encrypted in memory.
//
// Values loaded from the secrets file are sealed in memguard enclaves
// (XSalsa20Poly1305, mlock'd key material) and only decrypted for the
// duration of a Reveal call:
//
//	v := secure.Seal([]byte(password))
//	defer v.Destroy()
//
//	plain, err := v.Reveal()
//
// Call memguard.Purge (via secure.Purge) at process exit to wipe the session
// key and every enclave with it.
package secure
