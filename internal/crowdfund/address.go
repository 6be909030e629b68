package crowdfund

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// addressNamespace scopes every derived record id of this service.
var addressNamespace = uuid.MustParse("8f6b1e0a-3c1d-5b7e-9a43-5f2d8c7e61b4")

const (
	campaignPrefix   = "campaign"
	backerDataPrefix = "backer-data"
)

// CampaignAddress derives the campaign id from (seed, creator). The same
// pair always yields the same id, so a second create collides in storage.
func CampaignAddress(seed int64, creator uuid.UUID) uuid.UUID {
	buf := make([]byte, 0, len(campaignPrefix)+8+len(creator))
	buf = append(buf, campaignPrefix...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(seed))
	buf = append(buf, creator[:]...)
	return uuid.NewSHA1(addressNamespace, buf)
}

// VaultAddress derives the escrow account id that holds a campaign's pledges.
func VaultAddress(campaign uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(addressNamespace, campaign[:])
}

// BackerDataAddress derives the id of the contribution record of one backer
// in one campaign.
func BackerDataAddress(backer, campaign uuid.UUID) uuid.UUID {
	buf := make([]byte, 0, len(backerDataPrefix)+len(backer)+len(campaign))
	buf = append(buf, backerDataPrefix...)
	buf = append(buf, backer[:]...)
	buf = append(buf, campaign[:]...)
	return uuid.NewSHA1(addressNamespace, buf)
}
