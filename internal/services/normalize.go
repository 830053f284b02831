package services

import (
	"strings"

	"github.com/desertthunder/readx/internal/models"
)

const (
	defaultTitle       = "Untitled"
	defaultAuthor      = "Unknown Author"
	defaultDescription = "No description available"
	defaultLanguage    = "en"
)

// Volume is a catalog record as returned by the volumes API.
type Volume struct {
	ID         string      `json:"id"`
	VolumeInfo *VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo is the metadata block of a [Volume].
type VolumeInfo struct {
	Title         string      `json:"title"`
	Authors       []string    `json:"authors"`
	Description   string      `json:"description"`
	ImageLinks    *ImageLinks `json:"imageLinks"`
	PublishedDate string      `json:"publishedDate"`
	PageCount     int         `json:"pageCount"`
	Categories    []string    `json:"categories"`
	Language      string      `json:"language"`
	PreviewLink   string      `json:"previewLink"`
	InfoLink      string      `json:"infoLink"`
	Publisher     string      `json:"publisher"`
	AverageRating float64     `json:"averageRating"`
	RatingsCount  int         `json:"ratingsCount"`
}

// ImageLinks holds cover URLs by size.
type ImageLinks struct {
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
	Large     string `json:"large"`
}

type volumeList struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// NormalizeVolume maps v to the canonical [models.Book].
//
// It reports false when v carries no volume metadata.
func NormalizeVolume(v Volume) (models.Book, bool) {
	info := v.VolumeInfo
	if info == nil || v.ID == "" {
		return models.Book{}, false
	}

	book := models.Book{
		ID:            v.ID,
		Title:         firstNonEmpty(info.Title, defaultTitle),
		Authors:       info.Authors,
		Description:   firstNonEmpty(info.Description, defaultDescription),
		PublishedDate: info.PublishedDate,
		PageCount:     max(info.PageCount, 0),
		Categories:    info.Categories,
		Language:      firstNonEmpty(info.Language, defaultLanguage),
		PreviewLink:   info.PreviewLink,
		InfoLink:      info.InfoLink,
		Publisher:     info.Publisher,
		AverageRating: info.AverageRating,
		RatingsCount:  info.RatingsCount,
	}

	if len(book.Authors) == 0 {
		book.Authors = []string{defaultAuthor}
	}
	if book.Categories == nil {
		book.Categories = []string{}
	}

	if links := info.ImageLinks; links != nil {
		book.Thumbnail = links.Thumbnail
		book.ThumbnailLarge = firstNonEmpty(links.Large, links.Medium, links.Thumbnail)
	}

	if info.PublishedDate != "" {
		book.PublishedYear, _, _ = strings.Cut(info.PublishedDate, "-")
	}

	return book, true
}

// NormalizeVolumes maps every usable record and drops the rest.
func NormalizeVolumes(items []Volume) []models.Book {
	books := make([]models.Book, 0, len(items))
	for _, item := range items {
		if book, ok := NormalizeVolume(item); ok {
			books = append(books, book)
		}
	}
	return books
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
