// Package tagging writes metadata into audio-only downloads.
package tagging

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/ytmanager/internal/constants"
	"github.com/cesargomez89/ytmanager/internal/domain"
)

// Metadata is the subset of video information stored in audio tags.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	Comment     string
	URL         string
	Year        int
	TrackNumber int
}

// MetadataFor builds tag metadata for a video of sub.
func MetadataFor(sub *domain.Subscription, video *domain.Video, url string) *Metadata {
	md := &Metadata{
		Title:       video.Name,
		Artist:      video.UploaderName,
		Album:       sub.Name,
		Comment:     video.Description,
		URL:         url,
		TrackNumber: video.PlaylistIndex,
	}
	if md.Artist == "" {
		md.Artist = sub.ChannelName
	}
	if !video.PublishDate.IsZero() {
		md.Year = video.PublishDate.Year()
	}
	return md
}

// IsSupported reports whether TagFile can write tags into filePath.
func IsSupported(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case constants.ExtFLAC, constants.ExtMP3:
		return true
	}
	return false
}

// TagFile writes metadata tags to the audio file at filePath.
func TagFile(filePath string, md *Metadata, coverData []byte) error {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case constants.ExtFLAC:
		return tagFLAC(filePath, md, coverData)
	case constants.ExtMP3:
		return tagMP3(filePath, md, coverData)
	default:
		return fmt.Errorf("unsupported file format: %s", filepath.Ext(filePath))
	}
}

func tagFLAC(filePath string, md *Metadata, coverData []byte) error {
	f, err := flac.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	cmt, err := newVorbisComment(md)
	if err != nil {
		return err
	}
	cmtBlock := cmt.Marshal()

	// Replace existing comments and front covers, keep everything else.
	var blocks []*flac.MetaDataBlock
	for _, b := range f.Meta {
		switch b.Type {
		case flac.VorbisComment:
			continue
		case flac.Picture:
			if pic, err := flacpicture.ParseFromMetaDataBlock(*b); err == nil && pic.PictureType == flacpicture.PictureTypeFrontCover {
				continue
			}
		}
		blocks = append(blocks, b)
	}
	blocks = append(blocks, &cmtBlock)

	if len(coverData) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", coverData, constants.MimeTypeJPEG)
		if err != nil {
			return fmt.Errorf("failed to build picture block: %w", err)
		}
		picBlock := pic.Marshal()
		blocks = append(blocks, &picBlock)
	}
	f.Meta = blocks

	if err := f.Save(filePath); err != nil {
		return fmt.Errorf("failed to save FLAC file: %w", err)
	}
	return nil
}

func newVorbisComment(md *Metadata) (*flacvorbis.MetaDataBlockVorbisComment, error) {
	cmt := flacvorbis.New()
	fields := []struct {
		key   string
		value string
	}{
		{flacvorbis.FIELD_TITLE, md.Title},
		{flacvorbis.FIELD_ARTIST, md.Artist},
		{flacvorbis.FIELD_ALBUM, md.Album},
		{flacvorbis.FIELD_DESCRIPTION, md.Comment},
		{flacvorbis.FIELD_CONTACT, md.URL},
	}
	if md.Year > 0 {
		fields = append(fields, struct {
			key   string
			value string
		}{flacvorbis.FIELD_DATE, strconv.Itoa(md.Year)})
	}
	if md.TrackNumber > 0 {
		fields = append(fields, struct {
			key   string
			value string
		}{flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(md.TrackNumber)})
	}

	for _, field := range fields {
		if field.value == "" {
			continue
		}
		if err := cmt.Add(field.key, field.value); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", field.key, err)
		}
	}
	return cmt, nil
}

func tagMP3(filePath string, md *Metadata, coverData []byte) error {
	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(md.Title)
	tag.SetArtist(md.Artist)
	tag.SetAlbum(md.Album)
	if md.Year > 0 {
		tag.SetYear(strconv.Itoa(md.Year))
	}
	if md.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(md.TrackNumber))
	}
	if md.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "description",
			Text:        md.Comment,
		})
	}
	if md.URL != "" {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "SOURCE_URL",
			Value:       md.URL,
		})
	}

	if len(coverData) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    constants.MimeTypeJPEG,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     coverData,
		})
	}

	return tag.Save()
}
