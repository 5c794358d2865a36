package dto

import (
	"github.com/cesargomez89/ytmanager/internal/providers"
)

type ProviderResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Error      string `json:"error,omitempty"`
	Configured bool   `json:"configured"`
}

func FromProviderInfo(infos []providers.Info) []ProviderResponse {
	out := make([]ProviderResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, ProviderResponse{
			ID:         info.ID,
			Name:       info.Name,
			Configured: info.Configured,
			Error:      info.Error,
		})
	}
	return out
}
