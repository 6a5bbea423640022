package main

import "io"

// stdioReadWriter adapts a subprocess's stdout (read side) and stdin
// (write side) pipes into the single io.ReadWriter the remote proxy
// protocol speaks over.
type stdioReadWriter struct {
	r io.Reader
	w io.Writer
}

func (s stdioReadWriter) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s stdioReadWriter) Write(p []byte) (int, error) { return s.w.Write(p) }
