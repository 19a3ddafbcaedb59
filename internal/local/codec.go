package local

import (
	"encoding/json"
	"fmt"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// Codec converts between records and the bytes of a local file.
// Decode returns the records it could read and one error per skipped entry;
// err is non-nil only when the file as a whole is unreadable.
type Codec[T any] interface {
	Encode(records []T) ([]byte, error)
	Decode(data []byte) (records []T, skipped []error, err error)
}

// DTOCodec stores records as a JSON array of flat DTOs.
type DTOCodec[T any, D any] struct {
	ToDTO   func(T) D
	FromDTO func(D) (T, error)
}

func (c DTOCodec[T, D]) Encode(records []T) ([]byte, error) {
	dtos := make([]D, 0, len(records))
	for _, r := range records {
		dtos = append(dtos, c.ToDTO(r))
	}
	return json.MarshalIndent(dtos, "", "  ")
}

func (c DTOCodec[T, D]) Decode(data []byte) ([]T, []error, error) {
	var dtos []D
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", models.ErrParseFailure, err)
	}
	records := make([]T, 0, len(dtos))
	var skipped []error
	for _, d := range dtos {
		rec, err := c.FromDTO(d)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// Codecs for each entity type, each with its fixed date encoding.
var (
	DietCodec = DTOCodec[models.DietRecord, models.DietDTO]{
		ToDTO:   models.DietRecord.DTO,
		FromDTO: models.DietDTO.Record,
	}
	TrainingCodec = DTOCodec[models.TrainingRecord, models.TrainingDTO]{
		ToDTO:   models.TrainingRecord.DTO,
		FromDTO: models.TrainingDTO.Record,
	}
	PartWeightsCodec = DTOCodec[models.PartWeightsSnapshot, models.PartWeightsDTO]{
		ToDTO:   models.PartWeightsSnapshot.DTO,
		FromDTO: models.PartWeightsDTO.Record,
	}
	BodyPhotoCodec = DTOCodec[models.BodyPhotoMetadata, models.BodyPhotoDTO]{
		ToDTO:   models.BodyPhotoMetadata.DTO,
		FromDTO: models.BodyPhotoDTO.Record,
	}
)
