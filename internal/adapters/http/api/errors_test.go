package api

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrors(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("disk on fire")

		Convey("Then kinds and causes are both visible", func() {
			err := &Error{Op: "api.op", Kind: ErrBadRequest, Err: cause}
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: disk on fire")
		})

		Convey("Then NewKind and Wrap name the operation", func() {
			So(NewKind("api.op", ErrBadRequest).Error(), ShouldEqual, "api.op: bad request")
			So(errors.Is(Wrap("api.op", cause), cause), ShouldBeTrue)
			So(Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
