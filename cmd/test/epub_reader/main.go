// Inspection program for generated EPUB files
//
// Usage:
//
//	go run ./cmd/test/epub_reader/main.go <epub-file-path> (<content-filename> ...)
//
// This program:
// - Opens the EPUB file and validates the mimetype entry
// - Lists the archive entries in order with their compression method
// - Parses the package document (metadata, manifest, spine, cover)
// - Lists the local references of every XHTML document and flags missing targets
// - Prints the named content files
package main

import (
	"archive/zip"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/yuanying/epubgen/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/epub_reader/main.go <epub-file> (<content-filename> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	filePaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	reader, err := epub.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer reader.Close()

	fmt.Printf("✓ EPUB opened successfully (mimetype first and stored)\n")
	fmt.Printf("OPF Path: %s\n\n", reader.OPFPath())

	files := reader.Files()
	fmt.Printf("--- Entries (%d) ---\n", len(files))
	for _, name := range reader.Names() {
		method := "deflate"
		if files[name].Method == zip.Store {
			method = "store"
		}
		fmt.Printf("  %-8s %s\n", method, name)
	}

	opf, err := reader.Package()
	if err != nil {
		log.Fatalf("Failed to parse OPF: %v", err)
	}

	md := opf.Metadata
	fmt.Println("\n--- Metadata ---")
	fmt.Printf("Title:       %s\n", md.Title)
	fmt.Printf("Language:    %s\n", md.Language)
	fmt.Printf("Identifier:  %s\n", md.Identifier)
	fmt.Printf("Modified:    %s\n", md.Modified)
	for i, c := range md.Creators {
		role := c.Role
		if role == "" {
			role = "unknown"
		}
		fmt.Printf("Creator %d:   %s (role: %s)\n", i+1, c.Name, role)
	}
	if md.Rights != "" {
		fmt.Printf("Rights:      %s\n", md.Rights)
	}

	fmt.Printf("\n--- Manifest (%d) ---\n", len(opf.ManifestOrder))
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		props := ""
		if len(item.Properties) > 0 {
			props = " [" + strings.Join(item.Properties, " ") + "]"
		}
		missing := ""
		if _, ok := files[item.Href]; !ok {
			missing = " (MISSING)"
		}
		fmt.Printf("  %-12s %-40s %s%s%s\n", id, item.Href, item.MediaType, props, missing)
	}

	fmt.Println("\n--- Spine ---")
	if opf.PageProgressionDirection != "" {
		fmt.Printf("page-progression-direction: %s\n", opf.PageProgressionDirection)
	}
	for i, ref := range opf.Spine {
		fmt.Printf("  %d. %s\n", i+1, ref.IDRef)
	}

	if cover := opf.DetectCover(); cover != nil {
		fmt.Printf("\nCover: %s (%s, detected by %s)\n", cover.Href, cover.MediaType, cover.DetectionMethod)
	} else {
		fmt.Println("\nCover: none")
	}

	fmt.Println("\n--- References ---")
	for _, item := range opf.ItemsWithMediaType("application/xhtml+xml") {
		data, err := reader.ReadFile(item.Href)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", item.Href, err)
		}
		content, err := epub.LoadContent(item.Href, data)
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", item.Href, err)
		}
		fmt.Printf("%s (title: %q)\n", item.Href, content.Title())
		for _, ref := range content.References() {
			status := "ok"
			if _, ok := files[ref]; !ok {
				status = "MISSING"
			}
			fmt.Printf("  -> %s [%s]\n", ref, status)
		}
	}

	for _, filePath := range filePaths {
		fmt.Printf("\nReading content file: %s\n", filePath)
		content, err := reader.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read content file %s: %v", filePath, err)
		}
		fmt.Printf("Content:\n%s\n", string(content))
	}
}
