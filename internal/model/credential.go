package model

// Data-Integrity proof constants. The field values are part of the interop
// contract with external Open Badges / Verifiable Credentials consumers.
const (
	ProofTypeDataIntegrity = "DataIntegrityProof"
	CryptosuiteEdDSARDFC   = "eddsa-rdfc-2022"
	ProofPurposeAssertion  = "assertionMethod"
)

// Proof is a Data-Integrity proof attached alongside a credential document.
// Everything except ProofValue is canonicalized together with the document
// and covered by the signature.
type Proof struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	Created            string `json:"created"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue,omitempty"`
}

// VerificationChecks holds the per-check outcomes of a verification run.
// A nil check means it was not applicable (a legacy document without a
// proof gets no signature check).
type VerificationChecks struct {
	Structure  *bool `json:"structure,omitempty"`
	Revocation *bool `json:"revocation,omitempty"`
	Signature  *bool `json:"signature,omitempty"`
}

// VerificationResult is the outcome of verifying a single credential.
// Created fresh per call, never persisted.
type VerificationResult struct {
	Valid  bool               `json:"valid"`
	Checks VerificationChecks `json:"checks"`
	Errors []string           `json:"errors"`
}

// AddError records a failure message.
func (r *VerificationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
