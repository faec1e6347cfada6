package source

import "fmt"

const attachmentQuery = `
SELECT a.ZIDENTIFIER, a.ZMERGEABLEDATA, a.ZTYPEUTI, b.ZIDENTIFIER, b.ZFILENAME, a.ZURLSTRING, a.ZTITLE
FROM ZICCLOUDSYNCINGOBJECT a
LEFT JOIN ZICCLOUDSYNCINGOBJECT b ON a.ZMEDIA = b.Z_PK
WHERE a.ZCRYPTOTAG IS NULL AND a.ZTYPEUTI IS NOT NULL`

const highSierraQuery = `
SELECT n.ZNOTE AS note_id, n.ZDATA,
       c4.ZFILENAME, c4.ZIDENTIFIER,
       c1.ZTITLE1, c1.ZSNIPPET, c1.ZIDENTIFIER,
       c1.ZCREATIONDATE1, c1.ZMODIFICATIONDATE1,
       c2.ZTITLE2,
       c5.ZNAME, c5.ZIDENTIFIER
FROM ZICNOTEDATA AS n
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c1 ON c1.ZNOTEDATA = n.Z_PK
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c2 ON c2.Z_PK = c1.ZFOLDER
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c3 ON c3.ZNOTE = n.ZNOTE
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c4 ON c4.ZATTACHMENT1 = c3.Z_PK
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c5 ON c5.Z_PK = c1.ZACCOUNT2
WHERE n.ZNOTE IS NOT NULL
ORDER BY note_id`

// joinQuery reads the layout where notes and folders are linked through a
// Z_<folders>NOTES table.
func joinQuery(folders, notes int) string {
	return fmt.Sprintf(`
SELECT n.Z_%[2]dNOTES AS note_id, d.ZDATA, c1.ZIDENTIFIER,
       c2.ZTITLE2,
       c1.ZCREATIONDATE, c1.ZMODIFICATIONDATE1, c1.ZSNIPPET, c1.ZTITLE1,
       c5.ZIDENTIFIER, c5.ZNAME,
       c3.ZMEDIA, c3.ZIDENTIFIER, c4.ZFILENAME
FROM Z_%[1]dNOTES AS n
LEFT JOIN ZICNOTEDATA AS d ON d.ZNOTE = n.Z_%[2]dNOTES
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c1 ON c1.Z_PK = n.Z_%[2]dNOTES
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c2 ON c2.Z_PK = n.Z_%[1]dFOLDERS
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c3 ON c3.ZNOTE = n.Z_%[2]dNOTES
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c4 ON c3.ZMEDIA = c4.Z_PK
LEFT JOIN ZICCLOUDSYNCINGOBJECT AS c5 ON c5.Z_PK = c1.ZACCOUNT2
ORDER BY note_id`, folders, notes)
}

const legacyQuery = `
SELECT n.Z_PK AS note_id, n.ZDATECREATED, n.ZDATEEDITED, n.ZTITLE,
       (SELECT ZNAME FROM ZFOLDER WHERE n.ZFOLDER = ZFOLDER.Z_PK),
       ac.ZEMAILADDRESS, ac.ZACCOUNTDESCRIPTION, ac.ZUSERNAME,
       b.ZHTMLSTRING, att.ZCONTENTID, att.ZFILEURL
FROM ZNOTE AS n
LEFT JOIN ZNOTEBODY AS b ON b.ZNOTE = n.Z_PK
LEFT JOIN ZATTACHMENT AS att ON att.ZNOTE = n.Z_PK
LEFT JOIN ZACCOUNT AS ac ON ac.Z_PK = (
    SELECT zf2.ZACCOUNT FROM ZFOLDER AS zf1
    LEFT JOIN ZFOLDER AS zf2 ON zf1.ZPARENT = zf2.Z_PK
    WHERE n.ZFOLDER = zf1.Z_PK)
ORDER BY note_id`
