// Package secure keeps secret values encrypted in memory until they are handed
// to a child process.
//
// Values are sealed in memguard enclaves (XSalsa20Poly1305, mlocked where the
// platform allows). A value is decrypted only when the final environment for
// exec is assembled:
//
//	env := secure.NewEnv()
//	defer env.Destroy()
//	if err := env.Set("DB_PASSWORD", value); err != nil {
//	    return err
//	}
//	vars, err := env.Environ(base)
//
// Call memguard.Purge at process exit to wipe anything still held.
package secure
