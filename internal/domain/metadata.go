package domain

const GeneralMetadataKey = "general"

type TicketMetadata struct {
	LinkDescription map[string]string `json:"linkDescription,omitempty"`
	LinkURL         string            `json:"linkUrl,omitempty"`
	Attributes      map[string]string `json:"attributes"`
}

type MetadataContainer map[string]TicketMetadata

func (c MetadataContainer) Copy() MetadataContainer {
	out := make(MetadataContainer, len(c))
	for k, v := range c {
		attrs := make(map[string]string, len(v.Attributes))
		for ak, av := range v.Attributes {
			attrs[ak] = av
		}
		v.Attributes = attrs
		out[k] = v
	}
	return out
}

// MergeGeneral returns a copy of c whose general attributes are overwritten by updates.
// Keys absent from updates survive. c is never modified.
func MergeGeneral(c MetadataContainer, updates map[string]string) MetadataContainer {
	out := c.Copy()
	general := out[GeneralMetadataKey]
	if general.Attributes == nil {
		general.Attributes = make(map[string]string, len(updates))
	}
	for k, v := range updates {
		general.Attributes[k] = v
	}
	out[GeneralMetadataKey] = TicketMetadata{Attributes: general.Attributes}
	return out
}

type SubscriptionMetadata struct {
	Properties map[string]string `json:"properties"`
}
