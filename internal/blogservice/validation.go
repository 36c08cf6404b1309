package blogservice

import (
	"github.com/sushihentaime/bloglist/internal/common"
)

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(!hasScript(title), "title", "must not contain script elements")
}

func validateAuthor(v *common.Validator, author string) {
	v.Check(!hasScript(author), "author", "must not contain script elements")
}

func validateURL(v *common.Validator, url string) {
	v.Check(url != "", "url", "must be provided")
}

func validateLikes(v *common.Validator, likes int) {
	v.Check(likes >= 0, "likes", "must not be negative")
}

func validateBlog(v *common.Validator, b *Blog) {
	validateTitle(v, b.Title)
	validateAuthor(v, b.Author)
	validateURL(v, b.URL)
	validateLikes(v, b.Likes)
}
