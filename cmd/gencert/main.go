package main

import (
	"log"
	"time"

	flag "github.com/spf13/pflag"

	"studiorent/internal/tlsutil"
)

func main() {
	certFile := flag.String("cert", "cert.pem", "certificate output path")
	keyFile := flag.String("key", "key.pem", "private key output path")
	org := flag.String("org", "StudioRent", "certificate organization")
	hosts := flag.StringSlice("host", tlsutil.DefaultHosts, "DNS names or IPs the certificate covers")
	validFor := flag.Duration("valid-for", 365*24*time.Hour, "certificate lifetime")
	flag.Parse()

	if err := tlsutil.WriteFiles(*certFile, *keyFile, *org, *hosts, *validFor); err != nil {
		log.Fatalf("certificate generation failed: %v", err)
	}
	log.Printf("certificate written: %s and %s", *certFile, *keyFile)
}
