package stage

import (
	"suggestbot/internal/evidence"
	"suggestbot/internal/requests"
	"suggestbot/internal/services"
)

// LoadEvidence decodes the request's evidence packet. A request without one
// yields (nil, nil); a corrupt packet yields a services.ErrValidation.
func LoadEvidence(req *requests.Request) (*evidence.Packet, error) {
	packet, err := req.EvidencePacket()
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "load evidence",
			"Evidence packet is unreadable; re-run evidence extraction", err)
	}
	return packet, nil
}

// EvidenceSummary is the observational payload recorded when a packet is built.
func EvidenceSummary(packet *evidence.Packet) map[string]any {
	if packet == nil {
		return map[string]any{}
	}
	return map[string]any{
		"isbn_count":              len(packet.Identifiers.ISBN),
		"issn_count":              len(packet.Identifiers.ISSN),
		"doi_count":               len(packet.Identifiers.DOI),
		"url_count":               len(packet.Identifiers.URLs),
		"valid_isbn_present":      packet.Quality.Signals.ValidISBNPresent,
		"title_like_text_present": packet.Quality.Signals.TitleLikeTextPresent,
	}
}
