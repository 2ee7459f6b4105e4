package submit

import "solana-trade-engine/internal/domain"

func testArtifact() *domain.SignedArtifact {
	return &domain.SignedArtifact{
		Mint:      "mintX",
		Side:      domain.SideBuy,
		AmountKey: "0.5",
		Payload:   "c2lnbmVkLXR4",
		Signature: "ArtifactSig111111111111111111111111111111111",
	}
}
