package agent

import "crypto/sha256"

// challengeHash is the hash a participant signs in its hello to prove control
// of the address the connection will act as. The hash binds the signature to
// the network the agent runs against and to the address itself, so a hello
// cannot be replayed for another participant or on another network.
func challengeHash(networkPassphrase, address string) [32]byte {
	return sha256.Sum256([]byte("tradelight agent hello:" + networkPassphrase + ":" + address))
}
