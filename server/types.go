package server

import "github.com/sig-0/kursrates/storage/types"

type SourcesResponse struct {
	Results []types.Source `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
