package gui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/docupload/docupload/internal/constants"
	"github.com/docupload/docupload/internal/localfs"
	"github.com/docupload/docupload/internal/metadata"
)

// folderItem is one row of the selection list.
type folderItem struct {
	Path   string
	Detail string // document name and category, or why they cannot be read
	Valid  bool
}

// describeFolder previews the description of a selected folder. The preview
// is informational; the upload reads the file again.
func describeFolder(dir string) folderItem {
	item := folderItem{Path: dir}
	doc, err := metadata.ReadFile(dir)
	var formatErr *metadata.FormatError
	switch {
	case err == nil:
		item.Detail = fmt.Sprintf("%s · %s", doc.Name, doc.Category)
		item.Valid = true
	case errors.Is(err, os.ErrNotExist):
		item.Detail = "no " + constants.DescriptionFileName
	case errors.As(err, &formatErr):
		item.Detail = "invalid " + constants.DescriptionFileName + ": " + formatErr.Msg
	default:
		item.Detail = err.Error()
	}
	return item
}

// expandChoice turns a picked directory into the folders to select: the
// directory itself when it holds a description, otherwise each of its
// subdirectories.
func expandChoice(dir string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(dir, constants.DescriptionFileName)); err == nil {
		return []string{dir}, nil
	}
	entries, err := localfs.ListDirectory(dir, localfs.ListOptions{})
	if err != nil {
		return nil, err
	}
	var folders []string
	for _, e := range entries {
		if e.IsDir {
			folders = append(folders, e.Path)
		}
	}
	return folders, nil
}

// FolderList is the read-only list of selected document folders.
type FolderList struct {
	items []folderItem
	list  *widget.List
	empty *widget.Label
}

// NewFolderList creates an empty list.
func NewFolderList() *FolderList {
	fl := &FolderList{}
	fl.list = widget.NewList(
		func() int { return len(fl.items) },
		func() fyne.CanvasObject {
			path := widget.NewLabel("")
			path.Truncation = fyne.TextTruncateEllipsis
			detail := widget.NewLabel("")
			detail.TextStyle = fyne.TextStyle{Italic: true}
			return container.NewBorder(nil, nil, widget.NewIcon(theme.FolderIcon()), nil,
				container.NewVBox(path, detail))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(fl.items) {
				return
			}
			item := fl.items[id]
			row := obj.(*fyne.Container)
			labels := row.Objects[0].(*fyne.Container)
			labels.Objects[0].(*widget.Label).SetText(item.Path)
			detail := labels.Objects[1].(*widget.Label)
			detail.SetText(item.Detail)
			if item.Valid {
				detail.Importance = widget.MediumImportance
			} else {
				detail.Importance = widget.DangerImportance
			}
			detail.Refresh()
		},
	)
	fl.list.OnSelected = func(id widget.ListItemID) { fl.list.Unselect(id) }
	fl.empty = widget.NewLabel("No documents selected. Use \"Choose documents\" to pick folders.")
	fl.empty.Alignment = fyne.TextAlignCenter
	return fl
}

// SetFolders replaces the rows. Must run on the fyne goroutine.
func (fl *FolderList) SetFolders(folders []string) {
	fl.items = make([]folderItem, 0, len(folders))
	for _, f := range folders {
		fl.items = append(fl.items, describeFolder(f))
	}
	if len(fl.items) == 0 {
		fl.empty.Show()
	} else {
		fl.empty.Hide()
	}
	fl.list.UnselectAll()
	fl.list.Refresh()
}

// Len returns the number of rows.
func (fl *FolderList) Len() int {
	return len(fl.items)
}

// CanvasObject returns the widget to place in a layout.
func (fl *FolderList) CanvasObject() fyne.CanvasObject {
	return container.NewStack(fl.list, container.NewCenter(fl.empty))
}
