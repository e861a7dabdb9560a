package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meridian-data/meridian/internal/common/apperrors"
	"github.com/meridian-data/meridian/internal/metasrv/db/dberror"
	"github.com/meridian-data/meridian/internal/metasrv/db/models"
	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

// querier is the read surface shared by *sql.Conn and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// storeNow is the write timestamp: all persisted times live on a microsecond
// grid in UTC, matching the datetime value codec.
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// SaveNewTag appends a tag to an existing (object, version). The object row
// is locked for the duration, serializing concurrent writers per object. The
// new tag number must be exactly one past the current latest.
func (om *objectManager) SaveNewTag(ctx context.Context, tag *metadata.Tag) apperrors.Error {
	tenantID, aerr := tenantFromContext(ctx)
	if aerr != nil {
		return aerr
	}
	return withWriteRetry(ctx, func() apperrors.Error {
		return runInTx(ctx, om.conn(), func(tx *sql.Tx) apperrors.Error {
			return saveNewTagTx(ctx, tx, tenantID, tag)
		})
	})
}

func saveNewTagTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	obj, err := lockObjectTx(ctx, tx, tenantID, tag.Header.ObjectID)
	if err != nil {
		return err
	}
	if !obj.Saved {
		return dberror.ErrNotFound.Msg("object not found")
	}
	if obj.ObjectType != tag.Header.ObjectType {
		return dberror.ErrWrongType.Msg("stored object type is " + string(obj.ObjectType))
	}
	if err := fillVersionMetaTx(ctx, tx, tenantID, tag); err != nil {
		return err
	}
	latest, err := latestTagNumTx(ctx, tx, tenantID, tag.Header.ObjectID, tag.Header.ObjectVersion)
	if err != nil {
		return err
	}
	if tag.Header.TagVersion == 0 {
		tag.Header.TagVersion = latest + 1
	}
	switch {
	case tag.Header.TagVersion <= latest:
		return dberror.ErrAlreadyExists.Msg("tag version already exists")
	case tag.Header.TagVersion > latest+1:
		return dberror.ErrNotFound.Msg("prior tag version not found")
	}
	if err := clearLatestTagTx(ctx, tx, tenantID, tag.Header.ObjectID, tag.Header.ObjectVersion); err != nil {
		return err
	}
	tag.Header.TagTimestamp = storeNow()
	tag.Header.IsLatestTag = true
	if err := insertTagTx(ctx, tx, tenantID, tag); err != nil {
		return err
	}
	return insertAttrsTx(ctx, tx, tenantID, tag)
}

// fillVersionMetaTx verifies the target version exists and copies its
// timestamp and latest marker into the tag header.
func fillVersionMetaTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	query := `
		SELECT object_timestamp, is_latest
		FROM object_version
		WHERE object_id = $1 AND version_num = $2 AND tenant_id = $3;
	`
	err := tx.QueryRowContext(ctx, query, tag.Header.ObjectID, tag.Header.ObjectVersion, tenantID).
		Scan(&tag.Header.ObjectTimestamp, &tag.Header.IsLatestObject)
	if err != nil {
		if err == sql.ErrNoRows {
			return dberror.ErrNotFound.Msg("object version not found")
		}
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func latestTagNumTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID, versionNum int) (int, apperrors.Error) {
	query := `
		SELECT COALESCE(MAX(tag_num), 0)
		FROM tag
		WHERE object_id = $1 AND version_num = $2 AND tenant_id = $3;
	`
	var latest int
	err := tx.QueryRowContext(ctx, query, objectID, versionNum, tenantID).Scan(&latest)
	if err != nil {
		return 0, dberror.ErrDatabase.Err(err)
	}
	return latest, nil
}

func clearLatestTagTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, objectID uuid.UUID, versionNum int) apperrors.Error {
	query := `
		UPDATE tag
		SET is_latest = FALSE
		WHERE object_id = $1 AND version_num = $2 AND tenant_id = $3 AND is_latest;
	`
	if _, err := tx.ExecContext(ctx, query, objectID, versionNum, tenantID); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func insertTagTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	query := `
		INSERT INTO tag (object_id, tenant_id, version_num, tag_num, tag_timestamp, is_latest)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := tx.ExecContext(ctx, query,
		tag.Header.ObjectID, tenantID, tag.Header.ObjectVersion,
		tag.Header.TagVersion, tag.Header.TagTimestamp, tag.Header.IsLatestTag)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("tag version already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert tag")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// flattenAttrs turns the attribute map into normalized rows: scalars at
// attr_index 0, array elements at 1..n with attr_type naming the element
// type.
func flattenAttrs(tenantID types.TenantId, tag *metadata.Tag) ([]*models.TagAttr, apperrors.Error) {
	var rows []*models.TagAttr
	for name, value := range tag.Attrs {
		if !value.IsValid() {
			return nil, dberror.ErrInvalidInput.Msg("attribute " + name + " has no type")
		}
		newRow := func(idx int, v metadata.Value) *models.TagAttr {
			row := &models.TagAttr{
				ObjectID:   tag.Header.ObjectID,
				TenantID:   tenantID,
				VersionNum: tag.Header.ObjectVersion,
				TagNum:     tag.Header.TagVersion,
				AttrName:   name,
				AttrType:   string(v.BasicType()),
				AttrIndex:  idx,
			}
			setAttrValueColumn(row, v)
			return row
		}
		if value.IsArray() {
			for i, item := range value.Items() {
				rows = append(rows, newRow(i+1, item))
			}
		} else {
			rows = append(rows, newRow(0, value))
		}
	}
	return rows, nil
}

func setAttrValueColumn(row *models.TagAttr, v metadata.Value) {
	switch v.BasicType() {
	case metadata.BasicTypeBoolean:
		b := v.Bool()
		row.ValueBoolean = &b
	case metadata.BasicTypeInteger:
		i := v.Int()
		row.ValueInteger = &i
	case metadata.BasicTypeFloat:
		f := v.Float()
		row.ValueFloat = &f
	case metadata.BasicTypeDecimal:
		s := v.Decimal().String()
		row.ValueDecimal = &s
	case metadata.BasicTypeString:
		s := v.Str()
		row.ValueString = &s
	case metadata.BasicTypeDate:
		t := v.Time()
		row.ValueDate = &t
	case metadata.BasicTypeDatetime:
		t := v.Time()
		row.ValueDatetime = &t
	}
}

func rowToScalar(row *models.TagAttr) (metadata.Value, apperrors.Error) {
	t := metadata.BasicType(row.AttrType)
	switch t {
	case metadata.BasicTypeBoolean:
		if row.ValueBoolean != nil {
			return metadata.BoolValue(*row.ValueBoolean), nil
		}
	case metadata.BasicTypeInteger:
		if row.ValueInteger != nil {
			return metadata.IntValue(*row.ValueInteger), nil
		}
	case metadata.BasicTypeFloat:
		if row.ValueFloat != nil {
			return metadata.FloatValue(*row.ValueFloat), nil
		}
	case metadata.BasicTypeDecimal:
		if row.ValueDecimal != nil {
			v, err := metadata.ParseScalar(metadata.BasicTypeDecimal, *row.ValueDecimal)
			if err != nil {
				var aerr apperrors.Error
				if errors.As(err, &aerr) {
					return metadata.Value{}, aerr
				}
				return metadata.Value{}, dberror.ErrDatabase.Err(err)
			}
			return v, nil
		}
	case metadata.BasicTypeString:
		if row.ValueString != nil {
			return metadata.StringValue(*row.ValueString), nil
		}
	case metadata.BasicTypeDate:
		if row.ValueDate != nil {
			return metadata.DateValue(*row.ValueDate), nil
		}
	case metadata.BasicTypeDatetime:
		if row.ValueDatetime != nil {
			return metadata.DatetimeValue(*row.ValueDatetime), nil
		}
	}
	return metadata.Value{}, dberror.ErrDatabase.Msg("attribute row " + row.AttrName + " has no value for type " + row.AttrType)
}

func insertAttrsTx(ctx context.Context, tx *sql.Tx, tenantID types.TenantId, tag *metadata.Tag) apperrors.Error {
	rows, aerr := flattenAttrs(tenantID, tag)
	if aerr != nil {
		return aerr
	}
	query := `
		INSERT INTO tag_attr (object_id, tenant_id, version_num, tag_num, attr_name, attr_type, attr_index,
			value_boolean, value_integer, value_float, value_decimal, value_string, value_date, value_datetime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, query,
			row.ObjectID, row.TenantID, row.VersionNum, row.TagNum,
			row.AttrName, row.AttrType, row.AttrIndex,
			row.ValueBoolean, row.ValueInteger, row.ValueFloat, row.ValueDecimal,
			row.ValueString, row.ValueDate, row.ValueDatetime)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("attr_name", row.AttrName).Msg("failed to insert attribute")
			return dberror.ErrDatabase.Err(err)
		}
	}
	return nil
}

// loadAttrs rehydrates the attribute map of one tag. Rows with attr_index
// zero become scalars; index runs 1..n for arrays.
func loadAttrs(ctx context.Context, q querier, tenantID types.TenantId, objectID uuid.UUID, versionNum, tagNum int) (map[string]metadata.Value, apperrors.Error) {
	query := `
		SELECT attr_name, attr_type, attr_index,
			value_boolean, value_integer, value_float, value_decimal, value_string, value_date, value_datetime
		FROM tag_attr
		WHERE object_id = $1 AND version_num = $2 AND tag_num = $3 AND tenant_id = $4
		ORDER BY attr_name, attr_index;
	`
	rows, err := q.QueryContext(ctx, query, objectID, versionNum, tagNum, tenantID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to load attributes")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	type attrAccum struct {
		elemType metadata.BasicType
		indexes  []int
		values   []metadata.Value
		scalar   *metadata.Value
	}
	accums := make(map[string]*attrAccum)
	var order []string

	for rows.Next() {
		row := &models.TagAttr{}
		err := rows.Scan(&row.AttrName, &row.AttrType, &row.AttrIndex,
			&row.ValueBoolean, &row.ValueInteger, &row.ValueFloat, &row.ValueDecimal,
			&row.ValueString, &row.ValueDate, &row.ValueDatetime)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		v, aerr := rowToScalar(row)
		if aerr != nil {
			return nil, aerr
		}
		acc := accums[row.AttrName]
		if acc == nil {
			acc = &attrAccum{elemType: metadata.BasicType(row.AttrType)}
			accums[row.AttrName] = acc
			order = append(order, row.AttrName)
		}
		if row.AttrIndex == 0 {
			acc.scalar = &v
		} else {
			acc.indexes = append(acc.indexes, row.AttrIndex)
			acc.values = append(acc.values, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}

	attrs := make(map[string]metadata.Value, len(accums))
	for _, name := range order {
		acc := accums[name]
		if acc.scalar != nil {
			attrs[name] = *acc.scalar
			continue
		}
		sort.Sort(&byIndex{indexes: acc.indexes, values: acc.values})
		arr, err := metadata.ArrayValue(acc.elemType, acc.values)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		attrs[name] = arr
	}
	return attrs, nil
}

type byIndex struct {
	indexes []int
	values  []metadata.Value
}

func (s *byIndex) Len() int           { return len(s.indexes) }
func (s *byIndex) Less(i, j int) bool { return s.indexes[i] < s.indexes[j] }
func (s *byIndex) Swap(i, j int) {
	s.indexes[i], s.indexes[j] = s.indexes[j], s.indexes[i]
	s.values[i], s.values[j] = s.values[j], s.values[i]
}
