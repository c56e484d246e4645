package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/ledgerchat/ledgerchat/internal/envelope"
	"github.com/ledgerchat/ledgerchat/internal/identity"
)

func main() {
	id, _, err := identity.GenerateKeyPair()
	if err != nil {
		panic(err)
	}

	pub, _, err := envelope.GenerateKeyPair()
	if err != nil {
		panic(err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(pub),
	})

	fmt.Printf("Identity (base64):  %s\n", id)
	fmt.Printf("Encryption key:\n%s", pubPEM)
}
