package handlers

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// Download streams the files of a data product as one tar archive.
func (ch *CatalogHandler) Download(c *gin.Context) {
	var id types.DataProductIdentifier
	if err := c.ShouldBindJSON(&id); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	paths, err := ch.catalogService.GetFilePaths(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_identifier", err)
		return
	}
	if len(paths) == 0 {
		RespondError(c, http.StatusNotFound, "not_found",
			fmt.Errorf("no files found for the requested data product"))
		return
	}

	name := id.ExecutionBlock
	if name == "" {
		name = id.UID
	}
	c.Header("Content-Type", "application/x-tar")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".tar"))
	c.Status(http.StatusOK)

	tw := tar.NewWriter(c.Writer)
	defer tw.Close()
	for _, path := range paths {
		if err := addToArchive(tw, path); err != nil {
			// Headers are already on the wire; all we can do is log and cut
			// the stream short.
			_ = c.Error(err)
			return
		}
	}
}

// addToArchive writes the file or directory tree at root into the archive,
// with entry names relative to the root's parent directory.
func addToArchive(tw *tar.Writer, root string) error {
	base := filepath.Dir(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(name)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tw, file)
		return err
	})
}
