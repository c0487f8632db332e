package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("flightsurety.identity")

const maxIdentityLength = 1024

// escrowAccount is the wallet owned by the contract itself. No client
// identity can take this value because client IDs are X.509 encoded.
const escrowAccount = "escrow"

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// callerID retrieves the full X.509 ID of the current transactor.
func callerID(ctx contractapi.TransactionContextInterface) (string, error) {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if id == escrowAccount {
		return "", fmt.Errorf("client identity '%s' is reserved", id)
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// normalizeIdentity validates an identity passed as a transaction argument.
func normalizeIdentity(raw, field string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, field)
	}
	if len(id) > maxIdentityLength {
		return "", fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, maxIdentityLength)
	}
	if id == escrowAccount {
		return "", fmt.Errorf("%w: %s '%s' is reserved", ErrInvalidArgument, field, id)
	}
	return id, nil
}
