package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// Info is the free-form dataset description block.
type Info map[string]any

// Clone returns a shallow copy of the info block.
func (i Info) Clone() Info {
	if i == nil {
		return Info{}
	}
	return maps.Clone(i)
}

// License describes an image license.
type License struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`

	Extra Extra `json:"-"`
}

type licenseFields License

// MarshalJSON implements json.Marshaler.
func (l License) MarshalJSON() ([]byte, error) {
	return encodeRecord(licenseFields(l), l.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *License) UnmarshalJSON(data []byte) error {
	var f licenseFields
	extra, err := decodeRecord(data, &f)
	if err != nil {
		return err
	}
	*l = License(f)
	l.Extra = extra
	return nil
}

// Clone returns a deep copy.
func (l License) Clone() License {
	l.Extra = l.Extra.Clone()
	return l
}

// Image is a single image record.
type Image struct {
	ID           int64  `json:"id"`
	FileName     string `json:"file_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	License      int64  `json:"license,omitempty"`
	DateCaptured string `json:"date_captured,omitempty"`
	CocoURL      string `json:"coco_url,omitempty"`
	FlickrURL    string `json:"flickr_url,omitempty"`

	Extra Extra `json:"-"`
}

type imageFields Image

// MarshalJSON implements json.Marshaler.
func (img Image) MarshalJSON() ([]byte, error) {
	return encodeRecord(imageFields(img), img.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (img *Image) UnmarshalJSON(data []byte) error {
	var f imageFields
	extra, err := decodeRecord(data, &f)
	if err != nil {
		return err
	}
	*img = Image(f)
	img.Extra = extra
	return nil
}

// Clone returns a deep copy.
func (img Image) Clone() Image {
	img.Extra = img.Extra.Clone()
	return img
}

// WindowImage is an Image materialized into a window at a dataset position.
type WindowImage struct {
	Image
	Index int `json:"index"`
}

// MarshalJSON implements json.Marshaler. The index is written next to the
// image members.
func (w WindowImage) MarshalJSON() ([]byte, error) {
	extra := w.Extra.Clone()
	if extra == nil {
		extra = Extra{}
	}
	extra["index"] = json.RawMessage(strconv.Itoa(w.Index))
	return encodeRecord(imageFields(w.Image), extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WindowImage) UnmarshalJSON(data []byte) error {
	var img Image
	if err := img.UnmarshalJSON(data); err != nil {
		return err
	}
	index := 0
	if raw, ok := img.Extra["index"]; ok {
		if err := json.Unmarshal(raw, &index); err != nil {
			return err
		}
		delete(img.Extra, "index")
		if len(img.Extra) == 0 {
			img.Extra = nil
		}
	}
	*w = WindowImage{Image: img, Index: index}
	return nil
}

// Category is a label class.
type Category struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`

	Extra Extra `json:"-"`
}

type categoryFields Category

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return encodeRecord(categoryFields(c), c.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Category) UnmarshalJSON(data []byte) error {
	var f categoryFields
	extra, err := decodeRecord(data, &f)
	if err != nil {
		return err
	}
	*c = Category(f)
	c.Extra = extra
	return nil
}

// Clone returns a deep copy.
func (c Category) Clone() Category {
	c.Extra = c.Extra.Clone()
	return c
}

// Segmentation holds either polygon lists or an opaque run-length encoding.
//
// Crowd annotations store RLE objects instead of polygons; those bytes are kept
// verbatim so a load/save cycle never rewrites them.
type Segmentation struct {
	Polygons [][]float64
	RLE      json.RawMessage
}

// Polygons returns a segmentation made of the given polygons.
func Polygons(polys ...[]float64) Segmentation {
	return Segmentation{Polygons: polys}
}

// IsZero reports whether the segmentation carries no data.
func (s Segmentation) IsZero() bool {
	return len(s.Polygons) == 0 && len(s.RLE) == 0
}

// MarshalJSON implements json.Marshaler.
func (s Segmentation) MarshalJSON() ([]byte, error) {
	if len(s.RLE) > 0 {
		return s.RLE, nil
	}
	if s.Polygons == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Polygons)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Segmentation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = Segmentation{}
		return nil
	}
	if trimmed[0] == '[' {
		var polys [][]float64
		if err := json.Unmarshal(trimmed, &polys); err != nil {
			return err
		}
		*s = Segmentation{Polygons: polys}
		return nil
	}
	*s = Segmentation{RLE: slices.Clone(json.RawMessage(trimmed))}
	return nil
}

// Clone returns a deep copy.
func (s Segmentation) Clone() Segmentation {
	out := Segmentation{RLE: slices.Clone(s.RLE)}
	if s.Polygons != nil {
		out.Polygons = make([][]float64, len(s.Polygons))
		for i, p := range s.Polygons {
			out.Polygons[i] = slices.Clone(p)
		}
	}
	return out
}

// Annotation is a labelled region on one image.
//
// Besides the object-detection fields, the optional keypoint, caption,
// panoptic and DensePose fields are typed. Any other member lands in Extra.
type Annotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int64        `json:"category_id"`
	Segmentation Segmentation `json:"segmentation"`
	BBox         []float64    `json:"bbox"`
	Area         float64      `json:"area"`
	IsCrowd      int          `json:"iscrowd"`

	Keypoints    []float64       `json:"keypoints,omitempty"`
	NumKeypoints *int            `json:"num_keypoints,omitempty"`
	Caption      *string         `json:"caption,omitempty"`
	SegmentsInfo json.RawMessage `json:"segments_info,omitempty"`
	DPI          json.RawMessage `json:"dp_I,omitempty"`
	DPMasks      json.RawMessage `json:"dp_masks,omitempty"`

	Extra Extra `json:"-"`
}

type annotationFields Annotation

// MarshalJSON implements json.Marshaler.
func (a Annotation) MarshalJSON() ([]byte, error) {
	return encodeRecord(annotationFields(a), a.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var f annotationFields
	extra, err := decodeRecord(data, &f)
	if err != nil {
		return err
	}
	*a = Annotation(f)
	a.Extra = extra
	return nil
}

// Clone returns a deep copy.
func (a Annotation) Clone() Annotation {
	out := a
	out.Segmentation = a.Segmentation.Clone()
	out.BBox = slices.Clone(a.BBox)
	out.Keypoints = slices.Clone(a.Keypoints)
	if a.NumKeypoints != nil {
		out.NumKeypoints = Ptr(*a.NumKeypoints)
	}
	if a.Caption != nil {
		out.Caption = Ptr(*a.Caption)
	}
	out.SegmentsInfo = slices.Clone(a.SegmentsInfo)
	out.DPI = slices.Clone(a.DPI)
	out.DPMasks = slices.Clone(a.DPMasks)
	out.Extra = a.Extra.Clone()
	return out
}

// Dataset is the whole annotation document.
type Dataset struct {
	Info        Info         `json:"info"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`

	Extra Extra `json:"-"`
}

type datasetFields Dataset

// MarshalJSON implements json.Marshaler.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return encodeRecord(datasetFields(d), d.Extra)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var f datasetFields
	extra, err := decodeRecord(data, &f)
	if err != nil {
		return err
	}
	*d = Dataset(f)
	d.Extra = extra
	return nil
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	return &Dataset{
		Info:        d.Info.Clone(),
		Licenses:    cloneEach(d.Licenses, License.Clone),
		Categories:  cloneEach(d.Categories, Category.Clone),
		Images:      cloneEach(d.Images, Image.Clone),
		Annotations: CloneAnnotations(d.Annotations),
		Extra:       d.Extra.Clone(),
	}
}

// Normalize replaces nil collections with empty ones so the document always
// serializes every top-level key.
func (d *Dataset) Normalize() {
	if d.Info == nil {
		d.Info = Info{}
	}
	d.Licenses = nonNil(d.Licenses)
	d.Categories = nonNil(d.Categories)
	d.Images = nonNil(d.Images)
	d.Annotations = nonNil(d.Annotations)
}

// CloneAnnotations deep-copies a slice of annotations.
func CloneAnnotations(in []Annotation) []Annotation {
	out := make([]Annotation, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// CloneImages deep-copies a slice of images. The result is never nil.
func CloneImages(in []Image) []Image {
	return cloneEach(in, Image.Clone)
}

// CloneCategories deep-copies a slice of categories. The result is never nil.
func CloneCategories(in []Category) []Category {
	return cloneEach(in, Category.Clone)
}

// CloneLicenses deep-copies a slice of licenses. The result is never nil.
func CloneLicenses(in []License) []License {
	return cloneEach(in, License.Clone)
}

func cloneEach[T any](in []T, clone func(T) T) []T {
	out := make([]T, len(in))
	for i := range in {
		out[i] = clone(in[i])
	}
	return out
}

// AnnotationPatch is a partial annotation update. Nil fields are not touched.
type AnnotationPatch struct {
	ImageID      *int64
	CategoryID   *int64
	Segmentation *Segmentation
	BBox         []float64
	Area         *float64
	IsCrowd      *int
}

// Apply writes the non-nil fields of p into a.
func (p AnnotationPatch) Apply(a *Annotation) {
	if p.ImageID != nil {
		a.ImageID = *p.ImageID
	}
	if p.CategoryID != nil {
		a.CategoryID = *p.CategoryID
	}
	if p.Segmentation != nil {
		a.Segmentation = p.Segmentation.Clone()
	}
	if p.BBox != nil {
		a.BBox = slices.Clone(p.BBox)
	}
	if p.Area != nil {
		a.Area = *p.Area
	}
	if p.IsCrowd != nil {
		a.IsCrowd = *p.IsCrowd
	}
}

// CategoryPatch is a partial category update. Nil fields are not touched.
type CategoryPatch struct {
	Name          *string
	Supercategory *string
}

// Apply writes the non-nil fields of p into c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Supercategory != nil {
		c.Supercategory = *p.Supercategory
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
