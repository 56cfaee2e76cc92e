package gconf

import (
	"reflect"

	"github.com/drip-pay/drip"
	"github.com/drip-pay/drip/errors"
	"github.com/drip-pay/drip/x"
)

// OwnedConfig is implemented by a configuration that can be updated
// at runtime. Only the declared owner is allowed to apply a change.
type OwnedConfig interface {
	ValidMarshaler
	Unmarshal([]byte) error
	GetOwner() drip.Address
}

// NewUpdateConfigurationHandler returns a message handler that applies
// a configuration patch. The message processed by this handler must
// have a Patch field with the same type as the config argument.
//
// The config argument is used only as a type carrier, its value is
// never read.
func NewUpdateConfigurationHandler(pkg string, config OwnedConfig, auth x.Authenticator) UpdateConfigurationHandler {
	return UpdateConfigurationHandler{
		pkg:    pkg,
		config: config,
		auth:   auth,
	}
}

// UpdateConfigurationHandler provides a generic, reflection powered
// message handling for configuration update.
type UpdateConfigurationHandler struct {
	pkg    string
	config OwnedConfig
	auth   x.Authenticator
}

var _ drip.Handler = UpdateConfigurationHandler{}

func (h UpdateConfigurationHandler) Check(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.CheckResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	return &drip.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx drip.Context, store drip.KVStore, tx drip.Tx) (*drip.DeliverResult, error) {
	if err := h.applyTx(ctx, store, tx); err != nil {
		return nil, err
	}
	return &drip.DeliverResult{}, nil
}

func (h UpdateConfigurationHandler) applyTx(ctx drip.Context, store drip.KVStore, tx drip.Tx) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "cannot get message")
	}
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, "invalid message")
	}
	patch, err := patchOf(msg, h.config)
	if err != nil {
		return err
	}

	confType := reflect.TypeOf(h.config).Elem()
	config := reflect.New(confType).Interface().(OwnedConfig)
	if err := Load(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "cannot load configuration")
	}

	owner := config.GetOwner()
	if err := owner.Validate(); err != nil {
		return errors.Wrap(err, "configuration owner")
	}
	if !h.auth.HasAddress(ctx, owner) {
		return errors.Wrap(errors.ErrUnauthorized, "only the owner can update the configuration")
	}

	applyPatch(config, patch)
	if err := Save(store, h.pkg, config); err != nil {
		return errors.Wrap(err, "cannot save configuration")
	}
	return nil
}

// patchOf extracts the Patch field from the message and ensures its
// type matches the configuration type.
func patchOf(msg drip.Msg, config OwnedConfig) (OwnedConfig, error) {
	val := reflect.ValueOf(msg)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil, errors.Wrapf(errors.ErrType, "message must be a structure, got %T", msg)
	}
	field := val.FieldByName("Patch")
	if !field.IsValid() {
		return nil, errors.Wrapf(errors.ErrType, "message %T has no Patch field", msg)
	}
	if field.Type() != reflect.TypeOf(config) {
		return nil, errors.Wrapf(errors.ErrType, "patch must be of %T type", config)
	}
	if field.IsNil() {
		return nil, errors.Wrap(errors.ErrEmpty, "patch is empty")
	}
	return field.Interface().(OwnedConfig), nil
}

// applyPatch copies all non-zero fields of the patch onto the
// configuration. Zero value fields keep the current setting.
func applyPatch(config, patch OwnedConfig) {
	dst := reflect.ValueOf(config).Elem()
	src := reflect.ValueOf(patch).Elem()
	for i := 0; i < src.NumField(); i++ {
		f := src.Field(i)
		if isZero(f) {
			continue
		}
		dst.Field(i).Set(f)
	}
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	default:
		zero := reflect.Zero(v.Type()).Interface()
		return reflect.DeepEqual(v.Interface(), zero)
	}
}
