// Command keygen generates an ed25519 keypair for dev setups and prints the
// derived DID plus the base58-encoded key material. The seed can be fed back
// through CERTIS_SIGNER_SEED to give the server a stable identity.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mr-tron/base58"

	"certis/internal/keyring"
)

func main() {
	signer, err := keyring.GenerateSigner()
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}

	pub, err := signer.PublicKey(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "keygen:", err)
		os.Exit(1)
	}

	fmt.Println("did:       ", signer.DID())
	fmt.Println("public key:", base58.Encode(pub))
	fmt.Println("seed:      ", base58.Encode(signer.Seed()))
}
