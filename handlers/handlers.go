package handlers

import (
	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/fetch"
	"github.com/clipforge/clipforge/job"
	"github.com/clipforge/clipforge/store"
	"github.com/clipforge/clipforge/video"
)

// ClipperAPIHandlersCollection wires the HTTP surface to the Job
// Coordinator, Fetcher and Artifact Store, with every dependency injected
// at startup rather than reached through package-level globals.
type ClipperAPIHandlersCollection struct {
	Coordinator *job.Coordinator
	Fetcher     *fetch.Fetcher
	Store       *store.Store
	Prober      *video.CachingProber
	Config      config.Pipeline
}

func NewClipperAPIHandlersCollection(coordinator *job.Coordinator, fetcher *fetch.Fetcher, artifacts *store.Store, prober *video.CachingProber, cfg config.Pipeline) ClipperAPIHandlersCollection {
	return ClipperAPIHandlersCollection{
		Coordinator: coordinator,
		Fetcher:     fetcher,
		Store:       artifacts,
		Prober:      prober,
		Config:      cfg,
	}
}
